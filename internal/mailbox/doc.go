// Package mailbox provides durable messaging between team members.
//
// Messages are appended to a shared Repository (the SQLite store in
// production) and read by independent listeners that poll at their own pace.
// A message is addressed to one member or to every member through the
// broadcast recipient. Reading a message consumes it for that reader:
// direct messages are consumed once, broadcasts are consumed per reader so
// every member sees each broadcast exactly once.
//
// # Message Types
//
//   - direct: an ordinary message to one member
//   - broadcast: an announcement to the whole team
//   - help_request: a broadcast asking for assistance; its ID is the request ID
//   - help_response: an answer routed back to the requester
//   - status: a heartbeat broadcast (see package heartbeat)
//
// # Ordering and Expiry
//
// Listen returns messages in creation order. Priority ordering is a view
// applied at read time, stable with respect to creation order. A message
// whose expiry has passed is invisible to normal listens but stays in
// storage.
//
// # Usage
//
//	bus := mailbox.NewBus(st, mailbox.WithEventBus(events))
//	msg, err := bus.Send(ctx, mailbox.SendRequest{
//		From:    "overseer",
//		To:      "worker-1",
//		Content: "Pick up build-step-3",
//	})
//
//	inbox, err := bus.Listen(ctx, "worker-1", mailbox.ListenOptions{SortByPriority: true})
package mailbox
