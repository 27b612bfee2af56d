package sock

import "github.com/opensyncd/syncd/internal/metadata"

// envelope is the JSON body carried inside a wire.Frame's Payload. It is
// intentionally a single flat struct (mirroring internal/syftmsg's wire
// message shapes) rather than one Go type per operation, since every
// field here is optional depending on wire.Op.
type envelope struct {
	ID       string                       `json:"id"`
	User     string                       `json:"user,omitempty"`
	Pass     string                       `json:"pass,omitempty"`
	Path     string                       `json:"path,omitempty"`
	Modified int64                        `json:"modified,omitempty"`
	Size     int64                        `json:"size,omitempty"`
	Deleted  bool                         `json:"deleted,omitempty"`
	Files    map[string]metadata.FileData `json:"files,omitempty"`
	Data     []byte                       `json:"data,omitempty"`
	Error    string                       `json:"error,omitempty"`
}
