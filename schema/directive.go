package schema

import "strings"

// FieldValidation is the rule set parsed from @validate: doc directives.
// The core exposes these rules to code generators and never evaluates them.
type FieldValidation struct {
	Rules []ValidationRule
}

// ValidationRule is a single parsed rule. Rules with parameters are written
// "name=param" in the directive; bare rules ("email") have no parameter.
type ValidationRule struct {
	Name  string
	Param string
}

// Rule returns the named rule.
func (v *FieldValidation) Rule(name string) (ValidationRule, bool) {
	if v == nil {
		return ValidationRule{}, false
	}
	for _, r := range v.Rules {
		if r.Name == name {
			return r, true
		}
	}
	return ValidationRule{}, false
}

const (
	validatePrefix = "@validate:"
	tagPrefix      = "@tag:"
)

// ParseDoc splits documentation text into the plain text, the parsed
// validation rule set, and tag metadata. Directive lines start with
// "@validate:" or "@tag:" after trimming; everything else is documentation.
//
//	/// The user's address.
//	/// @validate: min=3, max=254, email
//	/// @tag: pii=true
//
// yields text "The user's address.", rules [min=3 max=254 email] and tags
// {pii: true}. A nil *FieldValidation means no directives were present.
func ParseDoc(doc string) (text string, validation *FieldValidation, tags map[string]string) {
	if doc == "" {
		return "", nil, nil
	}
	var plain []string
	for _, line := range strings.Split(doc, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, validatePrefix):
			rules := parseRules(strings.TrimPrefix(trimmed, validatePrefix))
			if len(rules) > 0 {
				if validation == nil {
					validation = &FieldValidation{}
				}
				validation.Rules = append(validation.Rules, rules...)
			}
		case strings.HasPrefix(trimmed, tagPrefix):
			key, value := splitKV(strings.TrimPrefix(trimmed, tagPrefix))
			if key != "" {
				if tags == nil {
					tags = make(map[string]string)
				}
				tags[key] = value
			}
		default:
			plain = append(plain, line)
		}
	}
	return strings.TrimSpace(strings.Join(plain, "\n")), validation, tags
}

func parseRules(s string) []ValidationRule {
	var rules []ValidationRule
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, param := splitKV(part)
		rules = append(rules, ValidationRule{Name: name, Param: param})
	}
	return rules
}

func splitKV(s string) (key, value string) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '='); i >= 0 {
		return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:])
	}
	return s, ""
}
