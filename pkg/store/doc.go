// Package store provides storage abstractions for membersync.
//
// This package defines interfaces for the state owned by the sync core,
// allowing the engine and the batch coordinator to be decoupled from the
// database. Implementations live in pkg/store/gorm and internal/memory.
//
// # Available Stores
//
//   - RulesStore: Association Rule persistence
//   - CursorStore: Batch cursor persistence
//
// # Usage
//
//	rules := gorm.NewRulesStore(db)
//	r, err := rules.Get(5, rule.MethodRole)
//	if err != nil {
//	    if errors.Is(err, store.ErrRuleNotFound) {
//	        // No rule configured for membership type 5
//	    }
//	}
package store
