// Package flagx helps several independent flag sets share os.Args: each
// config layer keeps only the flags it knows about.
package flagx

import (
	"flag"
	"io"
	"strings"
)

// FilterArgs returns the subset of args made of allowed flags and their values.
//
// Supported formats:
//  1. Flag and value as separate arguments:  -c conf.json
//  2. Flag and value combined with '=':      --config=conf.json
//
// Parameters:
//
//	args:         the command-line arguments (usually os.Args[1:])
//	allowedFlags: flag names to keep, spelled as on the command line
//	              (e.g. []string{"-c", "-config", "--config"})
//
// Returns:
//
//	The allowed flags in their original order, each followed by its value
//	when the value was given as a separate argument. A value is attached only
//	when the next token does not itself start with '-'. The result is never
//	nil, so it can be passed straight to flag.FlagSet.Parse.
//
// Example:
//
//	FilterArgs([]string{"-r", "postgres://db", "-c", "shop.json", "-v"}, []string{"-c"})
//	// => []string{"-c", "shop.json"}
func FilterArgs(args []string, allowedFlags []string) []string {
	// Set of allowed names for constant-time lookup.
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		// "-flag=value" or "--flag=value": keep or drop as one token.
		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name := strings.SplitN(arg, "=", 2)[0]
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		// "-flag value": the value, if any, is the next token.
		if _, ok := allowed[arg]; ok {
			filtered = append(filtered, arg)
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				filtered = append(filtered, args[i+1])
				i++ // value consumed
			}
		}
	}

	return filtered
}

// ConfigPath extracts the JSON config path given with -c, -config or
// --config from args (usually os.Args[1:]).
//
// Only these flags are parsed and every other argument is ignored, so the
// caller can later parse its own full flag set from the same args without
// "flag provided but not defined" errors. Parse errors are swallowed and the
// flag set writes nothing to stderr.
//
// If none of the flags is present, an empty string is returned.
func ConfigPath(args []string) string {
	var path string

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&path, "config", "", "Path to config file")
	fs.StringVar(&path, "c", "", "Path to config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config", "--config"}))

	return path
}
