package templates

import (
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Rendered is the result of substituting a context into one content version.
type Rendered struct {
	Subject string
	Body    string
}

var (
	tagPattern    = regexp.MustCompile(`\{%\s*(.*?)\s*%\}`)
	forTagPattern = regexp.MustCompile(`^for\s+([a-zA-Z_][a-zA-Z0-9_]*)\s+in\s+([a-zA-Z_][a-zA-Z0-9_]*)$`)
)

// Render substitutes context values into subject and body. Unresolved
// placeholders render as the empty string. HTML bodies additionally support
// a single level of {% for item in list %}...{% endfor %} iteration; in
// plain-text bodies {% ... %} is left as literal text. Output is never
// escaped in either mode, callers supply pre-sanitized values.
func Render(subject, body string, isHTML bool, context map[string]any) (Rendered, error) {
	renderedSubject, err := substitute(subject, context)
	if err != nil {
		return Rendered{}, err
	}

	var renderedBody string
	if isHTML {
		renderedBody, err = renderBlocks(body, context)
	} else {
		renderedBody, err = substitute(body, context)
	}
	if err != nil {
		return Rendered{}, err
	}

	return Rendered{Subject: renderedSubject, Body: renderedBody}, nil
}

// ValidateContext returns the variables required by a content version that
// are absent from context, sorted. Missing variables are a warning, not an
// error: rendering proceeds and substitutes the empty string.
func ValidateContext(required []string, context map[string]any) []string {
	missing := []string{}
	for _, name := range required {
		if _, ok := context[name]; !ok {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

func substitute(text string, context map[string]any) (string, error) {
	var firstErr error
	out := placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		sub := placeholderPattern.FindStringSubmatch(match)
		s, err := formatValue(sub[1], lookup(context, sub[1], sub[2]))
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return s
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

// lookup resolves the base identifier in context and walks any dotted tail
// through nested mappings. A missing key or non-mapping step resolves to nil.
func lookup(context map[string]any, base, tail string) any {
	v := context[base]
	if tail == "" {
		return v
	}
	return resolvePath(v, tail)
}

func resolvePath(v any, tail string) any {
	for _, seg := range strings.Split(strings.TrimPrefix(tail, "."), ".") {
		m, ok := v.(map[string]any)
		if !ok {
			return nil
		}
		v = m[seg]
	}
	return v
}

func formatValue(name string, v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case bool:
		return strconv.FormatBool(val), nil
	case int:
		return strconv.Itoa(val), nil
	case int32:
		return strconv.FormatInt(int64(val), 10), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case uint:
		return strconv.FormatUint(uint64(val), 10), nil
	case uint64:
		return strconv.FormatUint(val, 10), nil
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case json.Number:
		return val.String(), nil
	default:
		return "", NewRender("unsupported value type %T for variable %q", v, name)
	}
}

type blockSegment struct {
	literal string
	loopVar string
	listVar string
	body    string
}

func renderBlocks(body string, context map[string]any) (string, error) {
	segments, err := parseBlocks(body)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, seg := range segments {
		if seg.listVar == "" {
			s, err := substitute(seg.literal, context)
			if err != nil {
				return "", err
			}
			b.WriteString(s)
			continue
		}

		items, err := sequenceItems(seg.listVar, context[seg.listVar])
		if err != nil {
			return "", err
		}
		for _, item := range items {
			loopCtx := make(map[string]any, len(context)+1)
			for k, v := range context {
				loopCtx[k] = v
			}
			loopCtx[seg.loopVar] = item
			s, err := substitute(seg.body, loopCtx)
			if err != nil {
				return "", err
			}
			b.WriteString(s)
		}
	}
	return b.String(), nil
}

func parseBlocks(body string) ([]blockSegment, error) {
	tags := tagPattern.FindAllStringSubmatchIndex(body, -1)
	var segments []blockSegment
	pos := 0
	i := 0
	for i < len(tags) {
		loc := tags[i]
		tag := body[loc[2]:loc[3]]

		forMatch := forTagPattern.FindStringSubmatch(tag)
		if forMatch == nil {
			if tag == "endfor" {
				return nil, NewSyntax("endfor without a matching for")
			}
			return nil, NewSyntax("unrecognized template tag %q", tag)
		}

		end := -1
		for j := i + 1; j < len(tags); j++ {
			inner := body[tags[j][2]:tags[j][3]]
			if inner == "endfor" {
				end = j
				break
			}
			if forTagPattern.MatchString(inner) {
				return nil, NewSyntax("nested for blocks are not supported")
			}
			return nil, NewSyntax("unrecognized template tag %q", inner)
		}
		if end == -1 {
			return nil, NewSyntax("for block over %q is missing endfor", forMatch[2])
		}

		segments = append(segments,
			blockSegment{literal: body[pos:loc[0]]},
			blockSegment{loopVar: forMatch[1], listVar: forMatch[2], body: body[loc[1]:tags[end][0]]},
		)
		pos = tags[end][1]
		i = end + 1
	}
	segments = append(segments, blockSegment{literal: body[pos:]})
	return segments, nil
}

// sequenceItems accepts the value kinds the iteration construct supports.
// A missing list variable iterates zero times, consistent with the
// permissive placeholder semantics.
func sequenceItems(name string, v any) ([]any, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case []any:
		return val, nil
	case []map[string]any:
		items := make([]any, len(val))
		for i, m := range val {
			items[i] = m
		}
		return items, nil
	case []string:
		items := make([]any, len(val))
		for i, s := range val {
			items[i] = s
		}
		return items, nil
	default:
		return nil, NewRender("variable %q is not iterable", name)
	}
}
