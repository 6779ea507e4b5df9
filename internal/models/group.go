package models

import "time"

// Group is a named member set used for multi-party sends. A group never
// survives with zero members: the mutation that would empty it deletes it.
type Group struct {
	ID        string    `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name"`
	Members   []string  `json:"members" bson:"members"`
	CreatedBy string    `json:"created_by" bson:"created_by"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// HasMember reports whether uid is currently in the group.
func (g *Group) HasMember(uid string) bool {
	for _, m := range g.Members {
		if m == uid {
			return true
		}
	}
	return false
}

// CreateGroupRequest is the body of POST /groups.
type CreateGroupRequest struct {
	Name    string   `json:"name" validate:"required,max=24"`
	Members []string `json:"members" validate:"omitempty,dive,required"`
}

// AddGroupMemberRequest is the body of PUT /groups/:id/members.
type AddGroupMemberRequest struct {
	UID string `json:"uid" validate:"required"`
}
