// Package jimeng is a client for the Volcengine Jimeng / Ark image
// generation API.
//
// A call runs a fixed pipeline: the credential is resolved from an explicit
// override and the environment, the request is reduced to a canonical form,
// signed with the HMAC-SHA256 key derivation chain (date, region, service,
// "request"), sent exactly once, and the response envelope is mapped to a
// GenerationResult with every image saved to a Store.
//
// Quick start:
//
//	cred, err := jimeng.ResolveCredential(nil, jimeng.LoadEnv(os.LookupEnv))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	store, _ := storage.NewLocal("output")
//	client := jimeng.NewClient(cred, jimeng.WithStore(store))
//
//	result, err := client.Generate(ctx, jimeng.NewGenerationRequest("a cat"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.OK() {
//	    log.Fatal(result.Message)
//	}
//	fmt.Println(result.Files) // img_1700000000000_0.png
//
// The pipeline never retries. Retryable reports which errors a caller may
// retry; each retry is a new invocation with a new timestamp and signature.
package jimeng
