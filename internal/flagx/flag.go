// Package flagx lets several independent flag sets share one argument list.
// The config loader reads only its own flags and leaves the rest alone.
package flagx

import "strings"

// split breaks "-name", "--name" and "--name=value" into name and value.
// ok is false for positional arguments and the "--" terminator.
func split(arg string) (name, value string, inline, ok bool) {
	if len(arg) < 2 || arg[0] != '-' || arg == "--" {
		return "", "", false, false
	}
	name = strings.TrimPrefix(strings.TrimPrefix(arg, "-"), "-")
	name, value, inline = strings.Cut(name, "=")
	return name, value, inline, name != ""
}

// Subset keeps only the named flags and their values. Names are given
// without dashes, and both the single and double dash spellings match.
// A flag's value is taken from the next argument unless that argument
// is itself a flag.
func Subset(args []string, names ...string) []string {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}

	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		name, _, inline, ok := split(args[i])
		if !ok || !want[name] {
			continue
		}
		out = append(out, args[i])
		if inline || i+1 >= len(args) {
			continue
		}
		if _, _, _, next := split(args[i+1]); !next {
			out = append(out, args[i+1])
			i++
		}
	}
	return out
}

// Value returns the value of the last occurrence of any of names, matching
// the flag package where a repeated flag wins.
func Value(args []string, names ...string) string {
	var v string
	sub := Subset(args, names...)
	for i := 0; i < len(sub); i++ {
		_, val, inline, _ := split(sub[i])
		switch {
		case inline:
			v = val
		case i+1 < len(sub):
			if _, _, _, flag := split(sub[i+1]); !flag {
				v = sub[i+1]
				i++
			}
		}
	}
	return v
}

// ConfigPath is the config file named by -c or -config, or "".
func ConfigPath(args []string) string {
	return Value(args, "c", "config")
}
