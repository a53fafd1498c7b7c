// internal/normalize/normalize.go
package normalize

import (
	"encoding/json"
	"strconv"
	"strings"

	domain "duka-admin/internal/domain/session"
)

// The backend's user payload is not shape-stable: key casing varies between
// endpoints and optional fields come and go. Everything duck-typed is resolved
// here, once, so the rest of the gateway only ever sees the canonical record.

const (
	defaultRole     = "User"
	defaultInitial  = "U"
	uploadMarker    = "uploads"
	inlineImageMIME = "image/jpeg"
)

// Normalize maps a raw backend user payload into the canonical User. It is
// total over plain key-value input: missing fields degrade through the
// fallback chain, they never panic or error. Nil or empty input yields nil.
func Normalize(raw map[string]any, apiBase string) *domain.User {
	if len(raw) == 0 {
		return nil
	}

	email := lookupString(raw, "email")
	first := lookupString(raw, "firstName", "first_name")
	last := lookupString(raw, "lastName", "last_name")

	// No explicit name fields: split a combined full name, else fall back to
	// the email local part.
	if first == "" && last == "" {
		if full := lookupString(raw, "name", "fullName", "full_name"); full != "" {
			parts := strings.Fields(full)
			if len(parts) > 0 {
				first = parts[0]
				last = strings.Join(parts[1:], " ")
			}
		}
	}

	display := DisplayName(first, last, email)

	role := defaultRole
	if roles := lookupStringList(raw, "roles"); len(roles) > 0 {
		role = roles[0]
	}

	return &domain.User{
		ID:          lookupID(raw),
		FirstName:   first,
		LastName:    last,
		Name:        display,
		Email:       email,
		Photo:       ResolvePhoto(lookupString(raw, "photo", "image", "avatar"), apiBase),
		Role:        role,
		Permissions: domain.NewPermissionSet(lookupStringList(raw, "permissions")...),
		Initials:    Initials(first, last, display),
	}
}

// ResolvePhoto turns whatever the backend stored for a photo into a directly
// renderable reference. Idempotent: an already-resolved value passes through.
//
//  1. absolute URL or inline data reference: unchanged
//  2. upload path: backslashes normalized, one leading separator stripped,
//     prefixed with the API base origin
//  3. anything else: assumed to be a bare base64 image payload
func ResolvePhoto(raw, apiBase string) string {
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") || strings.HasPrefix(raw, "data:") {
		return raw
	}
	if strings.Contains(strings.ToLower(raw), uploadMarker) {
		path := strings.ReplaceAll(raw, `\`, "/")
		path = strings.TrimPrefix(path, "/")
		return strings.TrimSuffix(apiBase, "/") + "/" + path
	}
	return "data:" + inlineImageMIME + ";base64," + raw
}

// DisplayName resolves the rendered full name: explicit name parts when
// present, else the local part of the email address.
func DisplayName(first, last, email string) string {
	if d := strings.TrimSpace(first + " " + last); d != "" {
		return d
	}
	return emailLocalPart(email)
}

// Initials derives the 1-2 character avatar fallback.
func Initials(first, last, display string) string {
	out := firstRuneUpper(first) + firstRuneUpper(last)
	if out == "" {
		out = firstRuneUpper(display)
	}
	if out == "" {
		out = defaultInitial
	}
	return out
}

func firstRuneUpper(s string) string {
	for _, r := range s {
		return strings.ToUpper(string(r))
	}
	return ""
}

func emailLocalPart(email string) string {
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}

// lookup finds a value under any of the candidate keys, falling back to a
// case-insensitive scan so PascalCase and snake_case payloads both resolve.
func lookup(raw map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := raw[k]; ok {
			return v, true
		}
	}
	for rawKey, v := range raw {
		for _, k := range keys {
			if strings.EqualFold(rawKey, k) || strings.EqualFold(normalizeKey(rawKey), normalizeKey(k)) {
				return v, true
			}
		}
	}
	return nil, false
}

// normalizeKey strips separators so first_name, FirstName and firstname all
// collide.
func normalizeKey(k string) string {
	return strings.ToLower(strings.NewReplacer("_", "", "-", "").Replace(k))
}

func lookupString(raw map[string]any, keys ...string) string {
	v, ok := lookup(raw, keys...)
	if !ok {
		return ""
	}
	return asString(v)
}

func lookupID(raw map[string]any) string {
	v, ok := lookup(raw, "id", "_id", "userId", "user_id")
	if !ok {
		return ""
	}
	return asString(v)
}

func lookupStringList(raw map[string]any, keys ...string) []string {
	v, ok := lookup(raw, keys...)
	if !ok {
		return nil
	}

	var items []any
	switch list := v.(type) {
	case []any:
		items = list
	case []string:
		out := make([]string, 0, len(list))
		for _, s := range list {
			if s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		switch entry := item.(type) {
		case string:
			if entry != "" {
				out = append(out, entry)
			}
		case map[string]any:
			// roles sometimes arrive as objects; their name field is the value
			if name := lookupString(entry, "name"); name != "" {
				out = append(out, name)
			}
		}
	}
	return out
}

func asString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	case nil:
		return ""
	default:
		return ""
	}
}
