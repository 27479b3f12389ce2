package models

type Tag struct {
	ID    int64    `json:"id"`
	Name  string   `json:"tagname"`
	Hosts []string `json:"hosts"`
}

// Attribute is an attribute snapshot; Values maps hostname to the value set on that host.
type Attribute struct {
	ID     int64             `json:"id"`
	Name   string            `json:"attrname"`
	Values map[string]string `json:"values"`
}
