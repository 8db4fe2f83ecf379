// Package asyncx holds the small set of concurrency helpers the service uses.
//
// [Run] moves CPU-heavy work such as password derivation off the request
// goroutine; [Future.AwaitCtx] waits for it while honouring cancellation.
//
//	fut := asyncx.Run(func() (bool, error) {
//	    return hasher.Verify(password, salt, hash), nil
//	})
//	ok, err := fut.AwaitCtx(ctx)
//
// [Retry] is used at startup to wait for Postgres and Redis, and
// [WithTimeout] bounds the health-check probes. [All] fans out independent
// calls and returns their results in input order.
package asyncx
