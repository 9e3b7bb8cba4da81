/*
`chat` package is a transport-agnostic implementation of the lair's rooms and
message routing.

This package should not know anything about sockets. Sessions plug in through
the Member interface; the Registry tracks who is connected and which rooms
they are in, and the Router decides who receives each message.
*/

package chat
