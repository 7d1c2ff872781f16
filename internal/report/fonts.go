package report

import (
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

// FontDirEnv overrides the font search path.
const FontDirEnv = "PROFILEBOT_FONT_DIR"

// Fonts is a regular and bold face of one family, as TTF bytes.
type Fonts struct {
	Family  string
	Regular []byte
	Bold    []byte
	// Source is the directory the faces came from, or "builtin".
	Source string
}

type fontPair struct {
	family        string
	regular, bold string
}

var fontCandidates = []fontPair{
	{"DejaVuSans", "DejaVuSans.ttf", "DejaVuSans-Bold.ttf"},
	{"Arial", "Arial.ttf", "Arial Bold.ttf"},
	{"Arial", "arial.ttf", "arialbd.ttf"},
	{"LiberationSans", "LiberationSans-Regular.ttf", "LiberationSans-Bold.ttf"},
}

func platformFontDirs() []string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return []string{
			"/Library/Fonts",
			"/System/Library/Fonts/Supplemental",
			filepath.Join(home, "Library", "Fonts"),
		}
	case "windows":
		return []string{filepath.Join(os.Getenv("WINDIR"), "Fonts")}
	}
	return []string{
		"/usr/share/fonts/truetype/dejavu",
		"/usr/share/fonts/dejavu",
		"/usr/share/fonts/TTF",
		"/usr/share/fonts/truetype/liberation",
		"/usr/share/fonts/liberation-sans",
		"/usr/share/fonts/truetype/msttcorefonts",
		"/usr/local/share/fonts",
	}
}

// BuiltinFonts returns the embedded Go faces. They cover Cyrillic.
func BuiltinFonts() Fonts {
	return Fonts{Family: "Go", Regular: goregular.TTF, Bold: gobold.TTF, Source: "builtin"}
}

// FindFonts looks for a Unicode sans-serif pair in dirs, then in
// $PROFILEBOT_FONT_DIR, then in the platform font directories. It never
// fails: the builtin faces are the last resort.
func FindFonts(dirs ...string) Fonts {
	search := append([]string{}, dirs...)
	if env := os.Getenv(FontDirEnv); env != "" {
		search = append(search, env)
	}
	search = append(search, platformFontDirs()...)

	for _, dir := range search {
		if dir == "" {
			continue
		}
		for _, c := range fontCandidates {
			regular, err := os.ReadFile(filepath.Join(dir, c.regular))
			if err != nil {
				continue
			}
			bold, err := os.ReadFile(filepath.Join(dir, c.bold))
			if err != nil {
				continue
			}
			return Fonts{Family: c.family, Regular: regular, Bold: bold, Source: dir}
		}
	}
	return BuiltinFonts()
}
