// Package tui is the single player terminal client.
//
// The model drives a game engine directly and stores progress under the bare
// gameState and topScores keys, the same layout the browser version of the
// game keeps in localStorage. Digits pick a transport mode in the order of
// the configured action table.
package tui
