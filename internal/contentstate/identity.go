package contentstate

// IdentityKey derives the record id for learnerID and the item's content,
// course and batch. It depends on nothing else, so recomputing it for the
// same four values always yields the same id. The item's course id must
// already be defaulted. An absent batch contributes the empty string.
func IdentityKey(h Hasher, learnerID string, item UpdateItem) string {
	return h.HashKey(learnerID, item.ContentID, item.CourseID, item.BatchID)
}
