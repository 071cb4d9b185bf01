//go:build !gcloud

package config

// The local build dispatches from the in-process Redis queue worker, so no
// Cloud Tasks settings are required.
func (c *TaskQueueConfig) Validate() error {
	return nil
}
