package appearance

// Option is one selectable visual component.
type Option struct {
	ID          int
	Description string
}

// Category groups mutually exclusive options.
type Category struct {
	Name      string
	Mandatory bool
	Options   []Option
}

// DefaultCatalog is the closed set of components the frontend can render.
func DefaultCatalog() []Category {
	return []Category{
		{Name: "HEAD", Mandatory: true, Options: []Option{
			{ID: 41, Description: "Face with mouth"},
		}},
		{Name: "NOSE", Mandatory: true, Options: []Option{
			{ID: 42, Description: "A normal Nose"},
		}},
		{Name: "EYEBROW", Mandatory: true, Options: []Option{
			{ID: 5, Description: "Neutral eyebrows"},
		}},
		{Name: "TOP", Mandatory: true, Options: []Option{
			{ID: 43, Description: "Long sleeve shirt"},
			{ID: 44, Description: "Short sleeve shirt"},
			{ID: 45, Description: "Sleeveless shirt with a slight flair at the bottom similar to a dress"},
		}},
		{Name: "BOTTOM", Mandatory: true, Options: []Option{
			{ID: 1, Description: "Long pants"},
			{ID: 2, Description: "Short pants"},
			{ID: 3, Description: "A short skirt that flares outwards"},
		}},
		{Name: "HAIR", Options: []Option{
			{ID: 24, Description: "Generic short hairstyle for males"},
			{ID: 29, Description: "Mid-length hairstyle for women, with bangs"},
		}},
		{Name: "FACIALHAIR", Options: []Option{
			{ID: 16, Description: "Horseshoe mustache"},
			{ID: 18, Description: "Mustache and beard"},
		}},
		{Name: "HAT", Options: []Option{
			{ID: 35, Description: "Crown"},
			{ID: 36, Description: "Baseball cap"},
		}},
		{Name: "GLASSES", Options: []Option{
			{ID: 23, Description: "Glasses"},
		}},
	}
}
