// Package fixtures provides test data builders shared by the engine and service tests.
package fixtures
