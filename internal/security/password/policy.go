package password

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"
)

// Policy reglas de complejidad opcionales además del largo que ya exige la
// validación de credenciales.
type Policy struct {
	RequireUpper  bool
	RequireLower  bool
	RequireDigit  bool
	RequireSymbol bool
	Blacklist     *Blacklist
}

// Validate retorna los motivos de rechazo; vacío significa ok.
func (p Policy) Validate(s string) (reasons []string) {
	var hasU, hasL, hasD, hasS bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			hasU = true
		case unicode.IsLower(r):
			hasL = true
		case unicode.IsDigit(r):
			hasD = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasS = true
		}
	}
	if p.RequireUpper && !hasU {
		reasons = append(reasons, "missing_upper")
	}
	if p.RequireLower && !hasL {
		reasons = append(reasons, "missing_lower")
	}
	if p.RequireDigit && !hasD {
		reasons = append(reasons, "missing_digit")
	}
	if p.RequireSymbol && !hasS {
		reasons = append(reasons, "missing_symbol")
	}
	if p.Blacklist.Contains(s) {
		reasons = append(reasons, "blacklisted")
	}
	return reasons
}

// Blacklist contraseñas prohibidas, comparadas en minúsculas.
type Blacklist struct {
	mu   sync.RWMutex
	data map[string]struct{}
}

// NewBlacklist crea una blacklist con las palabras dadas.
func NewBlacklist(words ...string) *Blacklist {
	bl := &Blacklist{data: map[string]struct{}{}}
	for _, w := range words {
		bl.add(w)
	}
	return bl
}

// LoadBlacklist lee una contraseña por línea. Líneas vacías y "#..." se ignoran.
// Un path vacío da una blacklist vacía.
func LoadBlacklist(path string) (*Blacklist, error) {
	bl := NewBlacklist()
	if strings.TrimSpace(path) == "" {
		return bl, nil
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "#") {
			bl.add(line)
		}
	}
	return bl, sc.Err()
}

func (b *Blacklist) add(w string) {
	w = strings.ToLower(strings.TrimSpace(w))
	if w == "" {
		return
	}
	b.mu.Lock()
	b.data[w] = struct{}{}
	b.mu.Unlock()
}

// Contains es nil-safe.
func (b *Blacklist) Contains(pwd string) bool {
	if b == nil {
		return false
	}
	p := strings.ToLower(strings.TrimSpace(pwd))
	b.mu.RLock()
	_, ok := b.data[p]
	b.mu.RUnlock()
	return ok
}

// Len cantidad de entradas.
func (b *Blacklist) Len() int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.data)
}
