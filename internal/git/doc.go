// Package git reports the version-control revision a site is built from.
package git
