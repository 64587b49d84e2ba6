package contextload

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/HendryAvila/safeguard/internal/attempts"
	"github.com/HendryAvila/safeguard/internal/ledger"
	"github.com/google/uuid"
)

// Namespaces for deterministic ids of loaded entries.
var (
	decisionNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("safeguard:decision"))
	attemptNamespace  = uuid.NewSHA1(uuid.NameSpaceURL, []byte("safeguard:attempt"))
	blockerNamespace  = uuid.NewSHA1(uuid.NameSpaceURL, []byte("safeguard:blocker"))
)

// entry is one "## ..." section of a context file.
type entry struct {
	line   int
	header string
	fields map[string]string
	last   string
}

// sections splits Markdown into "## " sections terminated by "---" or
// the next header. Text before the first header is ignored. On a scanner
// error the sections read so far are returned with the error.
func sections(data string) ([]entry, error) {
	var out []entry
	var cur *entry

	flush := func() {
		if cur != nil {
			out = append(out, *cur)
			cur = nil
		}
	}

	sc := bufio.NewScanner(strings.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimRight(sc.Text(), " \t\r")
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, "## "):
			flush()
			cur = &entry{line: n, header: strings.TrimSpace(trimmed[3:]), fields: make(map[string]string)}
		case trimmed == "---":
			flush()
		case cur == nil, trimmed == "":
		default:
			if key, val, ok := fieldLine(trimmed); ok {
				cur.fields[key] = val
				cur.last = key
			} else if cur.last != "" {
				cur.fields[cur.last] = strings.TrimSpace(cur.fields[cur.last] + " " + trimmed)
			}
		}
	}
	flush()
	if err := sc.Err(); err != nil {
		return out, fmt.Errorf("line %d: %w", n+1, err)
	}
	return out, nil
}

// idSeq hands out deterministic ids. Identical entries in one file get
// distinct ids by occurrence, so a reload yields the same ids.
type idSeq map[string]int

func (s idSeq) next(ns uuid.UUID, key string) string {
	n := s[key]
	s[key] = n + 1
	return uuid.NewSHA1(ns, []byte(fmt.Sprintf("%s\x00%d", key, n))).String()
}

// fieldLine parses "**Key:** value" into ("key", "value").
func fieldLine(line string) (string, string, bool) {
	if !strings.HasPrefix(line, "**") {
		return "", "", false
	}
	rest := line[2:]
	end := strings.Index(rest, "**")
	if end < 0 {
		return "", "", false
	}
	key := strings.TrimSuffix(strings.TrimSpace(rest[:end]), ":")
	val := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(rest[end+2:]), ":"))
	return strings.ToLower(strings.TrimSpace(key)), val, key != ""
}

func yesNo(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "y", "true":
		return true, nil
	case "no", "n", "false", "":
		return false, nil
	}
	return false, fmt.Errorf("expected yes or no, got %q", v)
}

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04"}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// ParseDecisions reads the decisions file format. Malformed entries are
// skipped with a warning naming the file and line.
func ParseDecisions(name, data string) ([]ledger.NewDecision, []string) {
	var out []ledger.NewDecision
	var warnings []string
	warn := func(e entry, format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf("%s:%d: %s", name, e.line, fmt.Sprintf(format, args...)))
	}

	entries, err := sections(data)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("%s: %v", name, err))
	}
	ids := idSeq{}
	for _, e := range entries {
		date, title, ok := strings.Cut(e.header, " - ")
		if !ok || strings.TrimSpace(title) == "" {
			warn(e, "decision header must be \"## <date> - <title>\"")
			continue
		}
		ts, err := parseDate(date)
		if err != nil {
			warn(e, "%v", err)
			continue
		}

		d := ledger.NewDecision{
			Timestamp: ts,
			Decision:  strings.TrimSpace(title),
			Category:  ledger.Category(strings.ToLower(e.fields["category"])),
			Impact:    ledger.Impact(strings.ToLower(e.fields["impact"])),
			Reasoning: e.fields["reasoning"],
			MadeBy:    ledger.MadeBy(strings.ToLower(e.fields["made by"])),
		}
		if d.Reversible, err = yesNo(e.fields["reversible"]); err != nil {
			warn(e, "reversible: %v", err)
			continue
		}
		if d.UserApproved, err = yesNo(e.fields["approved"]); err != nil {
			warn(e, "approved: %v", err)
			continue
		}
		if alts := e.fields["alternatives"]; alts != "" {
			for _, a := range strings.Split(alts, ",") {
				if a = strings.TrimSpace(a); a != "" {
					d.AlternativesConsidered = append(d.AlternativesConsidered, a)
				}
			}
		}
		if err := d.Validate(); err != nil {
			warn(e, "%v", err)
			continue
		}
		d.ID = "dec_" + ids.next(decisionNamespace, e.header+"\x00"+string(d.Category)+"\x00"+string(d.Impact))
		out = append(out, d)
	}
	return out, warnings
}

// ParseAttempts reads the attempts file format: attempt and blocker
// sections in any order.
func ParseAttempts(name, data string) ([]attempts.NewAttempt, []attempts.Blocker, []string) {
	var as []attempts.NewAttempt
	var bs []attempts.Blocker
	var warnings []string
	warn := func(e entry, format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf("%s:%d: %s", name, e.line, fmt.Sprintf(format, args...)))
	}

	entries, err := sections(data)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("%s: %v", name, err))
	}
	ids := idSeq{}
	for _, e := range entries {
		kind, title, ok := strings.Cut(e.header, ":")
		title = strings.TrimSpace(title)
		if !ok || title == "" {
			warn(e, "expected \"## Attempt: <issue>\" or \"## Blocker: <title>\"")
			continue
		}

		switch strings.ToLower(strings.TrimSpace(kind)) {
		case "attempt":
			a := attempts.NewAttempt{
				Issue:          title,
				Approach:       e.fields["approach"],
				CodeOrCommand:  strings.Trim(e.fields["code"], "`"),
				Result:         attempts.Result(strings.ToLower(e.fields["result"])),
				ErrorMessage:   e.fields["error"],
				LessonsLearned: e.fields["lesson"],
			}
			if err := a.Validate(); err != nil {
				warn(e, "%v", err)
				continue
			}
			a.ID = "att_" + ids.next(attemptNamespace, attempts.Signature(a.Issue, a.Approach)+"\x00"+string(a.Result)+"\x00"+a.ErrorMessage)
			as = append(as, a)
		case "blocker":
			status := strings.ToLower(e.fields["status"])
			if status == "" {
				status = "active"
			}
			if status != "active" && status != "resolved" {
				warn(e, "invalid blocker status %q: must be one of: active, resolved", status)
				continue
			}
			bs = append(bs, attempts.Blocker{
				ID:          "blk_" + uuid.NewSHA1(blockerNamespace, []byte(title)).String(),
				Title:       title,
				Description: e.fields["description"],
				Status:      status,
			})
		default:
			warn(e, "unknown section type %q", strings.TrimSpace(kind))
		}
	}
	return as, bs, warnings
}
