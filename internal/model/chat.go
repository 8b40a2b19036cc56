package model

// Chat — чат команды. Personal отличает личный чат 1:1 от общего чата команды.
type Chat struct {
	ID       string   `mapstructure:"-" json:"id"`
	TeamID   string   `mapstructure:"teamId" json:"teamId"`
	Personal bool     `mapstructure:"personal" json:"personal"`
	UserIDs  []string `mapstructure:"userIds" json:"userIds"`
}

// Team — команда; Image показывается в групповых уведомлениях.
type Team struct {
	ID          string      `mapstructure:"-" json:"id"`
	Name        string      `mapstructure:"name" json:"name"`
	Image       string      `mapstructure:"image" json:"image"`
	ImageSource ImageSource `mapstructure:"imageSource" json:"imageSource"`
}

// DecodeChat разбирает документ коллекции chats.
func DecodeChat(id string, data map[string]any) (*Chat, error) {
	c := &Chat{ID: id}
	if err := decode(data, c); err != nil {
		return nil, malformed("chats", id, err)
	}
	if c.TeamID == "" {
		return nil, missing("chats", id, "teamId")
	}
	return c, nil
}

// DecodeTeam разбирает документ коллекции teams.
func DecodeTeam(id string, data map[string]any) (*Team, error) {
	t := &Team{ID: id}
	if err := decode(data, t); err != nil {
		return nil, malformed("teams", id, err)
	}
	if t.Name == "" {
		return nil, missing("teams", id, "name")
	}
	return t, nil
}
