// Package resolve maps catalog codes to the ordered image locations a
// rendering layer should try. Catalog photos exist under mixed extensions
// and directories, so lookup is a fallback chain rather than one path.
package resolve

// Priority selects which catalog extension is tried first.
type Priority string

const (
	PriorityJPG Priority = "jpg"
	PriorityBMP Priority = "bmp"
)

// CandidatePaths returns the ordered URIs to try for a code. A
// user-contributed capture, when present, is preferred over catalog photos.
// The caller tries each in order until one loads.
func CandidatePaths(code string, priority Priority, userImage string) []string {
	var base []string
	if priority == PriorityBMP {
		base = []string{
			"/images/perfiles/" + code + ".bmp",
			"/images/perfiles/" + code + ".jpg",
			"/images/" + code + ".bmp",
			"/images/" + code + ".jpg",
		}
	} else {
		base = []string{
			"/images/perfiles/" + code + ".jpg",
			"/images/perfiles/" + code + ".bmp",
			"/images/" + code + ".jpg",
			"/images/" + code + ".bmp",
		}
	}

	if userImage != "" {
		return append([]string{userImage}, base...)
	}
	return base
}
