// Package theme loads the CSS applied to toast popups. Themes are looked up in
// $XDG_CONFIG_HOME/toaster/themes/ first and fall back to the bundled themes.
package theme
