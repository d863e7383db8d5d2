// Package mastertherm is a client for the Mastertherm heat pump cloud
// service. It authenticates against either backend generation, lists the
// account's devices and fetches installation records and register
// snapshots, normalized into one version-independent shape.
//
// A minimal consumer:
//
//	client, err := mastertherm.NewClient(user, password, mastertherm.V2)
//	if err != nil {
//		return err
//	}
//	devices, err := client.ListDevices(ctx)
//	if err != nil {
//		return err
//	}
//	data, err := client.GetDeviceData(ctx, devices[0].DeviceRef)
//	if err != nil {
//		return err
//	}
//	fmt.Println(data.Points["outside_temp"])
//
// Sessions are established lazily and refreshed transparently; concurrent
// callers share one login. Calls against the current backend generation are
// spaced out because the vendor locks accounts out under aggressive
// polling; see SetRequestSpacing. All failures carry a typed error from a
// small taxonomy (AuthError, TransportError, ParseError, ConversionError)
// so callers can decide between retry and abort.
package mastertherm
