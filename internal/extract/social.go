package extract

import (
	"regexp"

	"github.com/venturescope/scout/internal/model"
)

// Profile URL patterns per network. Negative paths (share intents,
// home redirects) are filtered after the match because Go's regexp has
// no lookahead.
var (
	linkedinRe  = regexp.MustCompile(`https?://(?:[a-z]{2,3}\.)?linkedin\.com/(?:company|in|school)/[A-Za-z0-9_%.-]+/?`)
	twitterRe   = regexp.MustCompile(`https?://(?:www\.)?(?:twitter|x)\.com/[A-Za-z0-9_]{1,15}/?`)
	facebookRe  = regexp.MustCompile(`https?://(?:www\.)?facebook\.com/[A-Za-z0-9.)(-]+/?`)
	instagramRe = regexp.MustCompile(`https?://(?:www\.)?instagram\.com/[A-Za-z0-9_.]+/?`)
	youtubeRe   = regexp.MustCompile(`https?://(?:www\.)?youtube\.com/(?:@[A-Za-z0-9_.-]+|c/[A-Za-z0-9_.-]+|channel/[A-Za-z0-9_-]+|user/[A-Za-z0-9_.-]+)/?`)

	excludedPathRe = regexp.MustCompile(`/(?:intent|share|sharer|home)(?:[/?.]|$)`)
)

// ParseSocialLinks scans raw page content for social profile URLs and
// returns the first valid hit per network. Share widgets and intent
// links are skipped.
func ParseSocialLinks(content string) model.SocialLinks {
	first := func(re *regexp.Regexp) string {
		for _, m := range re.FindAllString(content, 5) {
			if excludedPathRe.MatchString(m) {
				continue
			}
			return m
		}
		return ""
	}

	return model.SocialLinks{
		LinkedIn:  first(linkedinRe),
		Twitter:   first(twitterRe),
		Facebook:  first(facebookRe),
		Instagram: first(instagramRe),
		YouTube:   first(youtubeRe),
	}
}
