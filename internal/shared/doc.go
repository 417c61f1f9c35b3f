// Package shared holds helpers used across the processor packages.
//
// # Test Utilities
//
// The testutil subpackage provides:
//
//	- A buffered slog handler with assertions on captured records
//	- Inspection form fixtures: headers, rows and decoded tables
//	- Builders for scored domain.Inspection values
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    logger, handler := testutil.NewTestLogger(t)
//	    table := testutil.NewTable(testutil.ScenarioHeaders(),
//	        testutil.FormRow(ts, "Juan Perez", "ABC123", "CUMPLE", "NO CUMPLE"))
//	    ...
//	    testutil.AssertNoErrors(t, handler)
//	}
//
// testutil depends only on the domain contracts and the standard library, so
// any package may import it from its tests.
package shared
