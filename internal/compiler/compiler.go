package compiler

import (
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/roach88/shellspark/internal/optimizer"
	"github.com/roach88/shellspark/internal/plan"
	"github.com/roach88/shellspark/internal/tools"
)

// DefaultCacheSize bounds the compile cache. Compiled commands are small;
// the bound exists to keep pathological plan generators from growing the
// process without limit.
const DefaultCacheSize = 256

// Compiler binds plans to a concrete toolset and memoizes compiled
// commands.
type Compiler struct {
	registry *tools.Registry
	cache    *lru.Cache
}

// New creates a Compiler over the given registry.
func New(registry *tools.Registry) *Compiler {
	cache, err := lru.New(DefaultCacheSize)
	if err != nil {
		// lru.New only fails on a non-positive size.
		panic(err)
	}
	return &Compiler{registry: registry, cache: cache}
}

var (
	defaultMu       sync.Mutex
	defaultCompiler *Compiler
)

// Default returns the process-wide compiler bound to the default
// registry.
func Default() *Compiler {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultCompiler == nil {
		defaultCompiler = New(tools.Default())
	}
	return defaultCompiler
}

// Registry exposes the bound registry.
func (c *Compiler) Registry() *tools.Registry { return c.registry }

// missingJQ is the environment error for json plans on a host without jq.
func (c *Compiler) missingJQ() error {
	return tools.NewUnsupportedEnvironment("jq", "required to compile json parsing")
}

// ClearCache drops every memoized command.
func (c *Compiler) ClearCache() {
	c.cache.Purge()
}

// Compile validates, optimizes, and assembles the plan. The result is
// memoized under both the raw and the optimized plan hash, so a repeat
// compile of the same builder output skips optimization entirely.
func (c *Compiler) Compile(root plan.Node) (string, error) {
	if err := plan.Validate(root); err != nil {
		return "", err
	}
	if err := plan.ValidateParallel(root); err != nil {
		return "", err
	}

	fingerprint, err := c.registry.Fingerprint()
	if err != nil {
		return "", err
	}

	rawHash, err := plan.Hash(root)
	if err != nil {
		return "", err
	}
	if cmd, ok := c.lookup(rawHash, fingerprint); ok {
		return cmd, nil
	}

	optimized, err := optimizer.Optimize(root)
	if err != nil {
		return "", err
	}
	optHash, err := plan.Hash(optimized)
	if err != nil {
		return "", err
	}
	if cmd, ok := c.lookup(optHash, fingerprint); ok {
		c.store(rawHash, fingerprint, cmd)
		return cmd, nil
	}

	cmd, err := c.assemble(optimized)
	if err != nil {
		// Partial results are never cached.
		return "", err
	}

	c.store(optHash, fingerprint, cmd)
	if rawHash != optHash {
		c.store(rawHash, fingerprint, cmd)
	}
	return cmd, nil
}

func cacheKey(hash, fingerprint string) string {
	return hash + "\x00" + fingerprint
}

func (c *Compiler) lookup(hash, fingerprint string) (string, bool) {
	v, ok := c.cache.Get(cacheKey(hash, fingerprint))
	if !ok {
		return "", false
	}
	return v.(string), true
}

func (c *Compiler) store(hash, fingerprint, cmd string) {
	c.cache.Add(cacheKey(hash, fingerprint), cmd)
}
