// Package config persists the user's backend selection to
// $HOME/.config/chacrab/config.json (overridable via CHACRAB_CONFIG_PATH).
package config
