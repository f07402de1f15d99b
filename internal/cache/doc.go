// Package cache provides the bounded LRU cache behind the lazily built
// stage kernels.
//
// Kernels are keyed by their define set. A miss builds the kernel once
// under the cache lock; later lookups with the same defines reuse it.
// Clear drops every entry and hands each evicted value to the eviction
// callback so GPU pipelines can be released.
//
//	c := cache.New[string, *Kernel](32)
//	k, err := c.GetOrBuild(defines.Key(), func() (*Kernel, error) {
//	    return compile(defines)
//	})
//
// Cache is safe for concurrent use and must not be copied after creation.
package cache
