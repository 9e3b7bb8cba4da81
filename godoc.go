/*
Package lair is a chat relay: clients connect over TCP or SSH, pick a
nickname, join rooms and exchange messages.

sshd subdirectory contains the ssh-related pieces which know nothing about chat.

chat subdirectory contains rooms and message routing and knows nothing about
sockets.

The Server type is the glue: it accepts connections, wraps each one in a
Connection and a Session, and feeds their commands to the chat router.
*/
package lair
