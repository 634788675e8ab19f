// Package memory keeps echo-viewer inside its container memory limit.
//
// ConfigureFromEnv derives GOMEMLIMIT from MEMORY_LIMIT (typically injected
// with the Kubernetes Downward API) scaled by MEMORY_RATIO, unless
// GOMEMLIMIT is already set:
//
//	env:
//	- name: MEMORY_LIMIT
//	  valueFrom:
//	    resourceFieldRef:
//	      resource: limits.memory
//
// Monitor samples the heap and, above the critical water mark, makes
// WaitIfPaused block so that no new full-resolution decode starts until
// usage falls below the high water mark. Decodes already running are not
// interrupted.
package memory
