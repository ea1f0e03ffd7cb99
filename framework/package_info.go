// Package framework contains the low-level implementation of test harness infrastructure
// that can be reused for different kinds of tests.
//
// The general model is:
//
// 1. The test harness loads the document under test once, from a file or from a URL, and
// each test builds its own isolated environment from it.
//
// 2. There is a general notion of a test context which is similar to Go's *testing.T,
// allowing pieces of test logic to be associated with a test identifier and to accumulate
// success/failure results.
//
// 3. A test can verify an ordered checklist with RunChecks. The checklist is fail-fast, and
// every outcome goes into the test's assertion log.
//
// The domain-specific code that knows what is being tested is responsible for building the
// environment and providing a domain-specific test API on top of the test context.
package framework
