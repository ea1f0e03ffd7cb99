// Package servicedef describes the backend surface that the dashboard calls: method names
// and the scenario parameters that drive parameterized responses.
package servicedef
