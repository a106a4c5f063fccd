package model

// DocumentRefKind discriminates how a profile references its document.
type DocumentRefKind string

const (
	// DocumentRefPublicURL means URL holds a ready-to-use public address.
	DocumentRefPublicURL DocumentRefKind = "public_url"
	// DocumentRefStorageObject means StorageKey identifies an object in the configured bucket.
	DocumentRefStorageObject DocumentRefKind = "storage_object"
)

// AccessPolicy describes how a storage object may be read.
type AccessPolicy string

const (
	// AccessPublicRead objects are reachable anonymously under the storage public root.
	AccessPublicRead AccessPolicy = "public-read"
	// AccessPrivate objects are only reachable through a freshly signed, expiring URL.
	AccessPrivate AccessPolicy = "private"
)

// DocumentRef is the tagged reference from a profile to its uploaded document.
// Exactly one of URL or StorageKey is meaningful, selected by Kind. It is set once,
// when the profile is created, and never changes afterwards.
type DocumentRef struct {
	Kind        DocumentRefKind `json:"kind"`
	URL         string          `json:"url,omitempty"`
	StorageKey  string          `json:"storage_key,omitempty"`
	Policy      AccessPolicy    `json:"access_policy,omitempty"`
	Filename    string          `json:"filename"`
	ContentType string          `json:"content_type"`
	Size        int64           `json:"size"`
}

// Usable reports whether the reference carries enough information to reach the document.
func (d DocumentRef) Usable() bool {
	switch d.Kind {
	case DocumentRefPublicURL:
		return d.URL != ""
	case DocumentRefStorageObject:
		return d.StorageKey != ""
	default:
		return d.URL != "" || d.StorageKey != ""
	}
}
