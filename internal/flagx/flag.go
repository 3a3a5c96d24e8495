// Package flagx helps the server parse a subset of the command line. The
// configuration is loaded in layers and the flag layer must pick out only the
// flags it owns, leaving tokens defined by other packages (including the test
// binary) untouched.
package flagx

import (
	"flag"
	"os"
	"strings"
)

// FilterArgs keeps only the arguments that belong to the named flags: the
// flag token itself, an attached "=value", or the separate value token that
// follows it. The result can be handed to a FlagSet defining just those
// flags without it erroring on anything unknown.
func FilterArgs(args []string, names []string) []string {
	keep := make(map[string]struct{}, len(names))
	for _, n := range names {
		keep[n] = struct{}{}
	}

	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name, _, _ := strings.Cut(arg, "=")
			if _, want := keep[name]; want {
				out = append(out, arg)
			}
			continue
		}

		if _, want := keep[arg]; want {
			out = append(out, arg)
			// A following token that is not itself a flag is this
			// flag's value.
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				out = append(out, args[i+1])
				i++
			}
		}
	}
	return out
}

// ConfigFilePath returns the config file path passed via -c or -config, or
// "" when neither flag is present. Other arguments are ignored entirely.
func ConfigFilePath() string {
	args := FilterArgs(os.Args[1:], []string{"-c", "-config"})

	var path string
	fs := flag.NewFlagSet("config-file", flag.ContinueOnError)
	fs.StringVar(&path, "config", "", "path to JSON config file")
	fs.StringVar(&path, "c", "", "path to JSON config file (shorthand)")
	_ = fs.Parse(args)

	return path
}
