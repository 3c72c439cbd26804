// Package stages defines the mining stage identities, their fixed
// execution order, and the artifact each one owns. The engine
// implementations live in the subpackages.
package stages
