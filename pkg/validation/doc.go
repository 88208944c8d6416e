// Package validation provides input validation utilities for flowedit.
//
// # Identifiers
//
// Module names, port names and gesture-script aliases share one naming
// convention: ASCII letters, digits, hyphen and underscore.
//
// # Path Validation
//
// Gesture scripts may reference a module catalog by relative path. Those paths
// are resolved with ResolveWithin, which rejects absolute paths, ".."
// components and symbolic links that escape the script's directory.
//
//	path, err := validation.ResolveWithin(filepath.Dir(scriptPath), script.Modules)
//	if err != nil {
//	    return fmt.Errorf("invalid modules path: %w", err)
//	}
package validation
