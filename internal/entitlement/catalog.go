package entitlement

// basicStyles is the fixed subset available to the starter tier.
var basicStyles = []string{
	"Pixar Animation",
	"Disney Animation",
	"Watercolor Painting",
	"Oil Painting",
	"Pencil Sketch",
	"Comic Book Art",
	"Studio Ghibli Animation",
	"Anime Portrait",
	"Fantasy Art",
	"Vector Art / Flat Illustration",
}

// premiumStyles require the pro tier or above.
var premiumStyles = []string{
	"DreamWorks Animation Style",
	"Looney Tunes / Classic Cartoon",
	"Scooby-Doo Mystery Ink Style",
	"Rick & Morty / Adult Swim Style",
	"Simpsons Style",
	"1930s Vintage Animation (Steamboat Willie)",
	"Charcoal Drawing",
	"Pastel Chalk Portrait",
	"Ink & Wash",
	"Gouache Painting",
	"Impressionist Painting (Monet-style)",
	"Pixel Art (8-bit / 16-bit)",
	"3D Sculpt / Claymation Look",
	"Cyberpunk City",
	"Renaissance Portrait",
}

var basicSet = func() map[string]bool {
	set := make(map[string]bool, len(basicStyles))
	for _, name := range basicStyles {
		set[name] = true
	}
	return set
}()

var catalogSet = func() map[string]bool {
	set := make(map[string]bool, len(basicStyles)+len(premiumStyles))
	for _, name := range basicStyles {
		set[name] = true
	}
	for _, name := range premiumStyles {
		set[name] = true
	}
	return set
}()

// Styles returns the full catalog, basic entries first. The returned slice is
// a copy; callers may not mutate the catalog.
func Styles() []string {
	out := make([]string, 0, len(basicStyles)+len(premiumStyles))
	out = append(out, basicStyles...)
	out = append(out, premiumStyles...)
	return out
}

// BasicStyles returns the starter-tier subset as a copy.
func BasicStyles() []string {
	out := make([]string, len(basicStyles))
	copy(out, basicStyles)
	return out
}

// InCatalog reports whether name is a known catalog style.
func InCatalog(name string) bool {
	return catalogSet[name]
}

// IsBasic reports whether name belongs to the starter subset.
func IsBasic(name string) bool {
	return basicSet[name]
}
