package testutil

import (
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
)

// DockerPool connects to the local docker daemon or skips the test.
func DockerPool(t testing.TB) *dockertest.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	pool.MaxWait = 60 * time.Second
	return pool
}

// RunContainer starts image:tag and purges it when the test ends.
func RunContainer(t testing.TB, pool *dockertest.Pool, image, tag string, env []string) *dockertest.Resource {
	t.Helper()
	resource, err := pool.Run(image, tag, env)
	if err != nil {
		t.Skipf("could not start %s:%s: %v", image, tag, err)
	}
	_ = resource.Expire(120)
	t.Cleanup(func() {
		if err := pool.Purge(resource); err != nil {
			t.Logf("purge %s: %v", image, err)
		}
	})
	return resource
}
