// Package core contains the split-payment domain contracts, entities, and
// orchestration logic. Network, storage, and transport adapters depend on this
// package; core must not depend on any concrete adapter.
package core
