package entity

// Player is an opaque identity handed to us by the identity provider.
type Player struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Bot  bool   `json:"bot,omitempty"`
}

func (that Player) Equal(other Player) bool {
	return that.ID == other.ID
}

// Label - is the display label used in notices.
func (that Player) Label() string {
	if that.Name != "" {
		return that.Name
	}
	return that.ID
}

// IsPlayable reports whether the identity may take part in a game.
func (that Player) IsPlayable() bool {
	return that.ID != "" && !that.Bot
}
