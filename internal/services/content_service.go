package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/CJonesCode/SnapConnect/internal/apperror"
	"github.com/CJonesCode/SnapConnect/internal/events"
	"github.com/CJonesCode/SnapConnect/internal/models"
	"github.com/CJonesCode/SnapConnect/internal/repositories"
	"github.com/google/uuid"
)

var symbolTagPattern = regexp.MustCompile(`^[A-Z]{1,5}$`)

// NormalizeSymbolTag uppercases raw, strips everything that is not a letter,
// and validates the result as a 1-5 letter tag. Tags that normalize to
// nothing or to more than five letters are rejected, never truncated.
func NormalizeSymbolTag(raw string) (string, error) {
	var b strings.Builder
	for _, r := range strings.ToUpper(raw) {
		if r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
		}
	}
	tag := b.String()
	if !symbolTagPattern.MatchString(tag) {
		return "", apperror.InvalidSymbolTag(raw)
	}
	return tag, nil
}

// ContentService owns the ephemeral content lifecycle: creation with the
// expiry stamped up front, write-time fan-out for broadcast and group sends,
// query-time visibility, the one-way consumed flip, and deletion routed
// through the cleanup orchestrator so a document never outlives the
// accounting of its blob.
type ContentService struct {
	content       repositories.ContentRepository
	groups        repositories.GroupRepository
	relationships *RelationshipService
	media         *MediaService
	cleanup       *CleanupService
	bus           *events.Bus
	ttl           time.Duration
}

// NewContentService creates a ContentService. ttl <= 0 falls back to the
// default 24 hours.
func NewContentService(
	content repositories.ContentRepository,
	groups repositories.GroupRepository,
	relationships *RelationshipService,
	media *MediaService,
	cleanup *CleanupService,
	bus *events.Bus,
	ttl time.Duration,
) *ContentService {
	if ttl <= 0 {
		ttl = models.DefaultTTL
	}
	return &ContentService{
		content:       content,
		groups:        groups,
		relationships: relationships,
		media:         media,
		cleanup:       cleanup,
		bus:           bus,
		ttl:           ttl,
	}
}

// Create validates and writes a send. Direct sends go to one named friend;
// group sends fan out to every current member except the sender; sends with
// no recipient broadcast to the sender's friends as of this instant, one
// independent item per friend. A broadcast with zero friends succeeds with
// zero items. Every created item carries expires_at stamped here, and a
// ContentDelivered event fires once per item.
func (s *ContentService) Create(ctx context.Context, sender string, req *models.CreateContentRequest) ([]models.ContentItem, error) {
	if !models.ValidKind(req.Kind) {
		return nil, apperror.InvalidOperation(fmt.Sprintf("unknown content kind %q", req.Kind))
	}
	if req.Recipient != "" && req.GroupID != "" {
		return nil, apperror.InvalidOperation("recipient and group_id are mutually exclusive")
	}

	symbol := ""
	if req.Symbol != "" {
		tag, err := NormalizeSymbolTag(req.Symbol)
		if err != nil {
			return nil, err
		}
		symbol = tag
	}

	if err := s.checkMediaRef(ctx, sender, req.Kind, req.MediaRef); err != nil {
		return nil, err
	}

	var recipients []string
	broadcast := false
	switch {
	case req.Recipient != "":
		if req.Recipient == sender {
			return nil, apperror.InvalidOperation("cannot send content to yourself")
		}
		friends, err := s.relationships.AreFriends(ctx, sender, req.Recipient)
		if err != nil {
			return nil, err
		}
		if !friends {
			return nil, apperror.InvalidOperation("recipient is not a friend")
		}
		recipients = []string{req.Recipient}
	case req.GroupID != "":
		group, err := s.groups.GetByID(ctx, req.GroupID)
		if err != nil {
			return nil, err
		}
		if !group.HasMember(sender) {
			return nil, apperror.InvalidOperation("only group members can send to the group")
		}
		for _, uid := range group.Members {
			if uid != sender {
				recipients = append(recipients, uid)
			}
		}
	default:
		if !models.BroadcastByDefault(req.Kind) {
			return nil, apperror.InvalidOperation(fmt.Sprintf("%s requires a recipient", req.Kind))
		}
		uids, err := s.relationships.FriendUIDs(ctx, sender)
		if err != nil {
			return nil, err
		}
		recipients = uids
		broadcast = true
	}

	now := time.Now().UTC()
	expiresAt := now.Add(s.ttl)
	items := make([]models.ContentItem, 0, len(recipients))
	for _, recipient := range recipients {
		items = append(items, models.ContentItem{
			ID:         uuid.NewString(),
			Sender:     sender,
			Recipient:  recipient,
			Kind:       req.Kind,
			Broadcast:  broadcast,
			GroupID:    req.GroupID,
			MediaRef:   req.MediaRef,
			Annotation: req.Annotation,
			Symbol:     symbol,
			Consumed:   false,
			CreatedAt:  now,
			ExpiresAt:  expiresAt,
		})
	}
	if err := s.content.InsertMany(ctx, items); err != nil {
		return nil, err
	}

	for i := range items {
		s.bus.Publish(ctx, events.ContentDelivered{
			ItemID:    items[i].ID,
			Sender:    sender,
			Recipient: items[i].Recipient,
			ItemKind:  items[i].Kind,
		})
	}
	return items, nil
}

// checkMediaRef enforces that the reference is shaped like an upload into the
// sender's namespace under the item's kind, and that it resolves to a live
// blob right now.
func (s *ContentService) checkMediaRef(ctx context.Context, sender, kind, ref string) error {
	parts := strings.SplitN(ref, "/", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return apperror.InvalidOperation(fmt.Sprintf("malformed media reference %q", ref))
	}
	if parts[0] != kind {
		return apperror.InvalidOperation(fmt.Sprintf("media reference category %q does not match kind %q", parts[0], kind))
	}
	if parts[1] != sender {
		return apperror.InvalidOperation("media reference belongs to another user")
	}
	return s.media.Resolve(ctx, ref)
}

// Inbox returns userID's visible items newest first: not consumed and not yet
// expired at query time, regardless of whether the sweep has caught up.
func (s *ContentService) Inbox(ctx context.Context, userID, kind string) ([]models.ContentItem, error) {
	if kind != "" && !models.ValidKind(kind) {
		return nil, apperror.InvalidOperation(fmt.Sprintf("unknown content kind %q", kind))
	}
	return s.content.ListInbox(ctx, userID, kind, time.Now().UTC())
}

// Get fetches one item. The sender can always see what they sent while the
// document exists; the recipient only while it is visible to their inbox.
func (s *ContentService) Get(ctx context.Context, userID, itemID string) (*models.ContentItem, error) {
	item, err := s.content.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if userID == item.Sender {
		return item, nil
	}
	if userID == item.Recipient && !item.Consumed && item.ExpiresAt.After(time.Now().UTC()) {
		return item, nil
	}
	return nil, apperror.NotFound("content item", itemID)
}

// MarkConsumed flips the item's consumed flag. Only the recipient may
// consume, the flip is one-way, and consuming an already-consumed item is a
// no-op. An item that was already swept comes back NotFound.
func (s *ContentService) MarkConsumed(ctx context.Context, userID, itemID string) error {
	item, err := s.content.GetByID(ctx, itemID)
	if err != nil {
		return err
	}
	if item.Recipient != userID {
		return apperror.NotFound("content item", itemID)
	}
	if item.Consumed {
		return nil
	}
	if !item.ExpiresAt.After(time.Now().UTC()) {
		return apperror.NotFound("content item", itemID)
	}
	return s.content.MarkConsumed(ctx, itemID)
}

// Delete removes an item at the sender's or recipient's request. The media
// reference is captured before the document goes away, then the pair is
// handed to the cleanup orchestrator so the blob is unbound (or the failure
// journaled) in the same call.
func (s *ContentService) Delete(ctx context.Context, userID, itemID string) error {
	item, err := s.content.GetByID(ctx, itemID)
	if err != nil {
		return err
	}
	if userID != item.Sender && userID != item.Recipient {
		return apperror.NotFound("content item", itemID)
	}
	return s.cleanup.CleanupContent(ctx, item.ID, item.MediaRef)
}
