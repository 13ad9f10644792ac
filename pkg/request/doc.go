// Package request defines the render job request and its wire framing.
//
// # Wire Format
//
// A request is two UTF-8 text fields, each terminated by a single zero byte,
// sent over one connection that the client closes after writing:
//
//	<target> 0x00 <payload> 0x00
//
// The target is an output path stem (the backend writes <target>.png) or one
// of the reserved control targets [TargetQuit] and [TargetIgnore]. The payload
// is a labeled-tree description for the syntax-tree backend, or the sentinel
// [GraphvizMarker], which selects the graph backend reading <target>.dot.
//
// # Usage
//
//	req, err := request.New("outfile", "[S [NP] [VP]]")
//	if err != nil {
//	    return err
//	}
//	if err := request.Encode(conn, req); err != nil {
//	    return err
//	}
//
// On the server side:
//
//	req, err := request.Decode(conn)
//	if errors.Is(err, errors.ErrCodeMalformedRequest) {
//	    // peer hung up mid-message
//	}
package request
