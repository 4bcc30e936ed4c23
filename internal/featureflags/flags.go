// Package featureflags evaluates the FEATURE_FLAGS setting.
//
// The setting is a comma-separated list of name=value rules, for example
// "likers_first=on,presence=25%". A value is on/true/1, off/false/0, or a
// percentage rolled out deterministically per user.
package featureflags

import (
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
)

// Flags read by the application.
const (
	// LikersFirst puts candidates who already liked the requester at the
	// front of the discovery batch.
	LikersFirst = "likers_first"
	// Presence reports whether matches are online in the match list.
	Presence = "presence"
)

// defaults apply when FEATURE_FLAGS does not mention a known flag.
var defaults = map[string]rule{
	LikersFirst: {percent: 0},
	Presence:    {percent: 100},
}

type rule struct {
	percent int
}

func (r rule) String() string {
	switch r.percent {
	case 0:
		return "off"
	case 100:
		return "on"
	}
	return strconv.Itoa(r.percent) + "%"
}

// Set is an immutable set of parsed rules. A nil *Set uses the defaults.
type Set struct {
	rules map[string]rule
}

// Parse builds a Set from raw. Malformed entries are skipped.
func Parse(raw string) *Set {
	rules := make(map[string]rule, len(defaults))
	for name, r := range defaults {
		rules[name] = r
	}

	for _, entry := range strings.Split(raw, ",") {
		name, value, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		name = normalize(name)
		r, ok := parseValue(normalize(value))
		if name == "" || !ok {
			continue
		}
		rules[name] = r
	}
	return &Set{rules: rules}
}

func parseValue(v string) (rule, bool) {
	switch v {
	case "on", "true", "1":
		return rule{percent: 100}, true
	case "off", "false", "0":
		return rule{percent: 0}, true
	}
	pct, found := strings.CutSuffix(v, "%")
	if !found {
		return rule{}, false
	}
	n, err := strconv.Atoi(pct)
	if err != nil {
		return rule{}, false
	}
	return rule{percent: min(max(n, 0), 100)}, true
}

// Enabled reports whether flag is on for userID. Partial rollouts need a
// non-zero user.
func (s *Set) Enabled(flag string, userID uint) bool {
	r, ok := s.lookup(normalize(flag))
	if !ok {
		return false
	}
	switch {
	case r.percent >= 100:
		return true
	case r.percent <= 0, userID == 0:
		return false
	}
	return bucket(flag, userID) < r.percent
}

func (s *Set) lookup(name string) (rule, bool) {
	if s == nil {
		r, ok := defaults[name]
		return r, ok
	}
	r, ok := s.rules[name]
	return r, ok
}

// Snapshot evaluates every known flag for userID.
func (s *Set) Snapshot(userID uint) map[string]bool {
	out := make(map[string]bool)
	for _, name := range s.Names() {
		out[name] = s.Enabled(name, userID)
	}
	return out
}

// Names returns the configured flag names, sorted.
func (s *Set) Names() []string {
	src := defaults
	if s != nil {
		src = s.rules
	}
	names := make([]string, 0, len(src))
	for name := range src {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe returns each flag with its configured value, for logging.
func (s *Set) Describe() map[string]string {
	out := make(map[string]string)
	for _, name := range s.Names() {
		r, _ := s.lookup(name)
		out[name] = r.String()
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func bucket(flag string, userID uint) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(normalize(flag) + ":" + strconv.FormatUint(uint64(userID), 10)))
	return int(h.Sum32() % 100)
}
