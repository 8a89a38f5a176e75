// Package config loads service settings from the environment, optionally
// seeded from a .env file, and validates them before anything is wired.
package config
