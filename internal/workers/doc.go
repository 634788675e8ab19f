/*
Package workers sizes and enforces decode concurrency.

Go sets GOMAXPROCS from the container CPU limit, whereas runtime.NumCPU
reports the host. Count and its helpers scale GOMAXPROCS so that a pod
limited to two CPUs on a 64-core node decodes two images at a time, not 64:

	limiter := workers.NewLimiter(workers.ForCPU(8))
	if err := limiter.Acquire(ctx); err != nil {
	    return err
	}
	defer limiter.Release()

Image decoding is CPU- and memory-bound, so ForCPU is the usual choice.
Operators may pin the value with DECODE_WORKERS:

	env:
	- name: DECODE_WORKERS
	  value: "4"
*/
package workers
