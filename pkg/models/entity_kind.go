package models

// EntityKind identifies a domain entity type for generic operations such as
// ownership checks and domain event recording.
type EntityKind string

const (
	KindProject       EntityKind = "project"
	KindSubject       EntityKind = "subject"
	KindVideoGroup    EntityKind = "video_group"
	KindVideo         EntityKind = "video"
	KindLabel         EntityKind = "label"
	KindAssignment    EntityKind = "assignment"
	KindAssignedLabel EntityKind = "assigned_label"
	KindAccessCode    EntityKind = "access_code"
)
