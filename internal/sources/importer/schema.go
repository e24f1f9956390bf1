package importer

// File is the root of an import file: a list of saved items.
//
//	- title: Understanding Channels
//	  url: https://go.dev/blog/channels
//	  content: optional page text, fetched from url when empty
//	- screenshot: true
//	  image: data:image/png;base64,...
//	  content: "[Screenshot]\n\nrecognized text"
type File []Item

// Item is one saved item as sent by a producer: an entry of the import
// file or the body of an HTTP create request.
type Item struct {
	Title      string   `yaml:"title" json:"title"`
	URL        string   `yaml:"url" json:"url"`
	Content    string   `yaml:"content,omitempty" json:"rawContent,omitempty"`
	Image      string   `yaml:"image,omitempty" json:"image,omitempty"`
	Screenshot bool     `yaml:"screenshot,omitempty" json:"isScreenshot,omitempty"`
	Starred    bool     `yaml:"starred,omitempty" json:"isStarred,omitempty"`
	Tags       []string `yaml:"tags,omitempty" json:"tags,omitempty"`
}
