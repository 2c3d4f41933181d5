package query

import (
	"fmt"

	"github.com/o0olele/octree-nav/octree"
)

// LoadAndQuery loads a saved octree and creates a query over it.
func LoadAndQuery(filename string, opts Options) (*NavigationQuery, error) {
	tree, err := octree.LoadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to load octree: %w", err)
	}

	query, err := NewNavigationQuery(tree, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create navigation query: %w", err)
	}

	return query, nil
}
