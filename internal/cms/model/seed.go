package model

// Seed returns the document served before an admin has saved anything.
func Seed() *Content {
	c := &Content{
		Institute: Institute{
			Name:    "Training Institute",
			Tagline: "Industry-ready courses with hands-on projects",
		},
		Pages: map[string]PageSEO{
			"home":    {Title: "Home", Description: "Professional training courses"},
			"courses": {Title: "Courses", Description: "Browse all courses"},
			"blog":    {Title: "Blog", Description: "Articles and news"},
			"about":   {Title: "About Us"},
			"contact": {Title: "Contact Us"},
		},
	}
	c.Normalize()
	return c
}
