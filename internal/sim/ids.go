package sim

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// idNamespace is the fixed UUIDv5 namespace for agent identity. Changing it
// would break id stability across deployments.
var idNamespace = uuid.MustParse("2e8f9e94-6ab2-4f2d-9ab0-6f94af5ff58e")

// Slugify lowers a name and collapses every non-alphanumeric run into a
// single dash. Empty results fall back to "agent".
func Slugify(value string) string {
	lowered := strings.ToLower(strings.TrimSpace(value))
	var b strings.Builder
	dash := false
	for _, r := range lowered {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return "agent"
	}
	return slug
}

// DeterministicAgentID derives a stable agent id from (role, name, persona,
// insertion index). Repeated submissions of identical input yield the same
// id, which makes agent addition idempotent.
func DeterministicAgentID(role Role, name, personaText string, index int) string {
	key := fmt.Sprintf("%s|%s|%s|%d",
		role,
		strings.ToLower(strings.TrimSpace(name)),
		strings.ToLower(strings.TrimSpace(personaText)),
		index,
	)
	uid := uuid.NewSHA1(idNamespace, []byte(key))
	hexID := strings.ReplaceAll(uid.String(), "-", "")
	return fmt.Sprintf("%s_%s_%s", string(role)[:1], Slugify(name), hexID[:10])
}
