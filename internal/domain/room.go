// Package domain holds the room models shared by the relay service and its
// repositories.
package domain

type Member struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MediaReference points at a playable catalog item. The id is opaque to the
// relay; a bad id only surfaces as a player error on the client.
type MediaReference struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
}

// Room is the authoritative playback state for one room. Position is
// client-supplied and therefore not strictly monotonic. Revision increases
// by one on every applied intent.
type Room struct {
	ID       string          `json:"id"`
	Members  []Member        `json:"members"`
	Media    *MediaReference `json:"media,omitempty"`
	Position float64         `json:"position"`
	Playing  bool            `json:"playing"`
	Revision uint64          `json:"revision"`
}

// Snapshot is the playback part of a Room, sent to bring one client up to
// date on join or on an explicit sync request.
type Snapshot struct {
	Media    *MediaReference `json:"media,omitempty"`
	Position float64         `json:"position"`
	Playing  bool            `json:"playing"`
	Revision uint64          `json:"revision"`
}
