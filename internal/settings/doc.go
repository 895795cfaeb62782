// Package settings drives the interactive quality configuration flow: a
// format menu, a quality menu, then persisting the choice and refreshing the
// service menu labels.
package settings
