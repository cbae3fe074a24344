// Package publish uploads finished export files to S3 or an S3-compatible
// object store.
//
// A Publisher is built either from configuration, using the default AWS
// credential chain, or around any ObjectPutter:
//
//	pub, err := publish.NewFromConfig(ctx, &cfg.Output.S3,
//		publish.WithUploadHook(collector.RecordPublish))
//	uploads, err := pub.PublishAll(ctx, []string{"data/export.csv"})
//
// Object keys are the configured prefix followed by the file's base name.
// Each upload runs inside a "publish.upload" span.
package publish
