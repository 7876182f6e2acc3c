package publish

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"clipmill/internal/config"
	"clipmill/internal/render"
)

// Platform metadata limits.
const (
	maxTitleRunes       = 100
	maxDescriptionRunes = 5000
	maxTags             = 15
)

// Metadata is the per-channel upload metadata derived from a clip.
type Metadata struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Tags          []string `json:"tags,omitempty"`
	PrivacyStatus string   `json:"privacyStatus"`
}

var hashtagCaser = cases.Title(language.English)

// BuildMetadata applies the channel's content transform to the clip's base
// metadata: tag prefixing, a channel-specific description suffix, hashtag
// normalization, and truncation to platform limits.
func BuildMetadata(clip *render.Clip, channel config.Channel, hashtags []string) Metadata {
	title := truncateRunes(strings.TrimSpace(clip.Title), maxTitleRunes)

	var desc strings.Builder
	desc.WriteString(strings.TrimSpace(clip.Description))
	if suffix := strings.TrimSpace(channel.DescriptionSuffix); suffix != "" {
		if desc.Len() > 0 {
			desc.WriteString("\n\n")
		}
		desc.WriteString(suffix)
	}
	allTags := normalizeHashtags(append(append([]string{}, clip.Hashtags...), hashtags...))
	if len(allTags) > 0 {
		if desc.Len() > 0 {
			desc.WriteString("\n\n")
		}
		desc.WriteString(strings.Join(allTags, " "))
	}

	tags := make([]string, 0, len(allTags))
	for _, tag := range allTags {
		tag = strings.TrimPrefix(tag, "#")
		if prefix := strings.TrimSpace(channel.TagPrefix); prefix != "" {
			tag = prefix + tag
		}
		tags = append(tags, tag)
		if len(tags) == maxTags {
			break
		}
	}

	privacy := channel.PrivacyStatus
	if privacy == "" {
		privacy = "public"
	}
	return Metadata{
		Title:         title,
		Description:   truncateRunes(desc.String(), maxDescriptionRunes),
		Tags:          tags,
		PrivacyStatus: privacy,
	}
}

// normalizeHashtags lowercase-dedupes the tags, title-cases each word, and
// guarantees a leading #.
func normalizeHashtags(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, tag := range raw {
		tag = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tag), "#"))
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, "#"+compactTitle(tag))
	}
	return out
}

// compactTitle title-cases the words of a tag and strips the spaces between
// them so multi-word topics become a single CamelCase hashtag.
func compactTitle(tag string) string {
	titled := hashtagCaser.String(tag)
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, titled)
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
