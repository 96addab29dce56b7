package domain

type Language struct {
	Code  string `json:"code"`
	Label string `json:"label"`
	Flag  string `json:"flag"`
}

var SupportedLanguages = []Language{
	{Code: "en", Label: "English", Flag: "US"},
	{Code: "ja", Label: "Japanese", Flag: "JP"},
	{Code: "pt", Label: "Portuguese", Flag: "BR"},
	{Code: "de", Label: "German", Flag: "DE"},
	{Code: "fr", Label: "French", Flag: "FR"},
	{Code: "es", Label: "Spanish", Flag: "ES"},
	{Code: "ko", Label: "Korean", Flag: "KR"},
	{Code: "zh", Label: "Chinese", Flag: "CN"},
}
