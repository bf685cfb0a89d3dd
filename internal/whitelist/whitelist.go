// Package whitelist loads the startup JSON resource file of withdrawal
// recipients per chain name. Entries are keyed by chain only: the coin
// type of a withdrawal is not consulted. It is loaded once; no hot-reload
// path exists.
package whitelist

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// List maps a chain name to the set of recipient addresses authorised to
// receive a withdrawal on that chain.
type List struct {
	byChain map[string]map[string]struct{}
}

// Load reads the whitelist JSON file at path. Its shape is
// {"<chain_name>": ["0xaddr1", "0xaddr2", ...], ...}.
func Load(path string) (*List, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read whitelist file: %w", err)
	}

	var parsed map[string][]string
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode whitelist file: %w", err)
	}

	l := &List{byChain: make(map[string]map[string]struct{}, len(parsed))}
	for chain, addrs := range parsed {
		set := make(map[string]struct{}, len(addrs))
		for _, a := range addrs {
			set[strings.ToLower(a)] = struct{}{}
		}
		l.byChain[chain] = set
	}
	return l, nil
}

// Allowed reports whether recipient is whitelisted for chainName.
func (l *List) Allowed(chainName, recipient string) bool {
	set, ok := l.byChain[chainName]
	if !ok {
		return false
	}
	_, ok = set[strings.ToLower(recipient)]
	return ok
}
