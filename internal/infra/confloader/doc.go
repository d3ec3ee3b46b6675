// Package confloader loads dsh CLI settings with koanf and watches
// configuration files with fsnotify.
//
// Priority (highest to lowest):
//
//  1. Command-line flags (LoadMap)
//  2. Environment variables (DSH_*)
//  3. YAML settings file
//  4. Defaults (LoadMap before anything else)
package confloader
