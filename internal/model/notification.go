package model

// Statistics is the system snapshot sent to the notification channel.
type Statistics struct {
	Timestamp            string `json:"timestamp,omitempty"`
	ServerTime           string `json:"serverTime,omitempty"`
	System               string `json:"system,omitempty"`
	Version              string `json:"version,omitempty"`
	SystemStatus         string `json:"systemStatus,omitempty"`
	APIStatus            string `json:"apiStatus,omitempty"`
	Buses                int    `json:"buses"`
	Stops                int    `json:"stops"`
	PassengersToday      int    `json:"passengersToday"`
	TotalPassengersToday int    `json:"totalPassengersToday"`
	TotalExitedToday     int    `json:"totalExitedToday"`
}

// BotProfile is the identity returned by the bot API.
type BotProfile struct {
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
}
