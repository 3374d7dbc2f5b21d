package queue

type Queue interface {
	SendMessage(msg []byte) error
	RecvMessage() ([]byte, error)
	Close() error
}

// FundMessage hands a discovered fund from discovery to fetching
type FundMessage struct {
	Ticker    string `json:"ticker"`
	Cik       string `json:"cik"`
	Title     string `json:"title"`
	Type      string `json:"type"`
	Provider  string `json:"provider"`
	SeriesId  string `json:"seriesId"`
	ClassId   string `json:"classId"`
	Discovery string `json:"discovery"`
}
