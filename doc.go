// Package imagecache keeps decoded and uploaded images resident across
// frames and reclaims the ones that stopped being used.
//
// The cache maps an [image.ID] to a [Record] describing where the image's
// pixels currently live:
//
//   - [Host]: decoded pixels in ordinary memory
//   - [Device]: a region of the shared [atlas.Atlas], or a dedicated
//     [gpu.Binding] for images unsuitable for the atlas
//   - [Failed]: a sticky decode or upload error
//
// Every lookup during a frame marks its ID as hit. [Cache.Reclaim] then
// drops every record that was neither hit nor externally referenced since
// the previous pass, releasing its atlas region or handing its binding to a
// drop callback that defers destruction until the GPU is done with it.
//
// [Renderer] wires the cache to an atlas, an image pipeline and a deferred
// releaser, which is what most applications want:
//
//	r, err := imagecache.New(device, queue)
//	if err != nil {
//		return err
//	}
//	defer r.Close()
//
//	for frame := range frames {
//		for _, h := range frame.Images {
//			d, err := r.Prepare(h)
//			if err != nil {
//				continue // drop this draw
//			}
//			draw(d)
//		}
//		sub, _ := queue.Submit(cmds)
//		r.EndFrame(sub)
//	}
//
// The cache and renderer are single-threaded: callers must serialize access.
package imagecache
