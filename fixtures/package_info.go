// Package fixtures holds the canned backend responses that the mock bridge delivers.
package fixtures
