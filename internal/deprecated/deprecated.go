// Package deprecated lists legacy client files the patcher always removes,
// independent of the manifest.
package deprecated

import (
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
)

// Version identifies the current list. Bump it when the list changes.
const Version = 1

// files is kept in removal order.
var files = []string{
	"arena.eqg",
	"arena2.eqg",
	"arena2.zon",
	"arena2_EnvironmentEmitters.txt",
	"arena2_chr.txt",
	"arena_EnvironmentEmitters.txt",
	"highpasshold.eqg",
	"highpasshold.zon",
	"highpasshold_EnvironmentEmitters.txt",
	"lavastorm.emt",
	"lavastorm.eqg",
	"lavastorm.mp3",
	"lavastorm_EnvironmentEmitters.txt",
	"lavastorm_chr.txt",
	"nektulos.eqg",
	"nektulos_EnvironmentEmitters.txt",
	"nro_assets.txt",
	"fieldofbone_environmentemitters.txt",
}

var set = mapset.NewSet(files...)

// Files returns a copy of the list in removal order.
func Files() []string {
	return slices.Clone(files)
}

// Contains reports whether name is on the list.
func Contains(name string) bool {
	return set.Contains(name)
}
