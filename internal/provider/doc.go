// Package provider contains clients for external text-to-image services.
//
// The package currently ships a single implementation, DashScopeClient,
// which adapts the DashScope asynchronous image-synthesis API to the
// orchestrator's provider contract: create a remote job, poll it by ID,
// and download the finished artifact.
package provider
