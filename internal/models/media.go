package models

// CategoryAvatars is the storage namespace for profile pictures; the four
// content kinds double as the namespaces for their media.
const CategoryAvatars = "avatars"

// MediaCategories lists every blob namespace that can hold a user's objects.
// The account cascade prefix-deletes each one.
func MediaCategories() []string {
	return []string{KindSnap, KindTip, KindSignal, KindStory, CategoryAvatars}
}

// ValidMediaCategory reports whether c is a known storage namespace.
func ValidMediaCategory(c string) bool {
	for _, cat := range MediaCategories() {
		if c == cat {
			return true
		}
	}
	return false
}
