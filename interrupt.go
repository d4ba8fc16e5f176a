package dcpu16

import "fmt"

// enqueueInterrupt places msg at the tail of the interrupt queue. If the
// queue already holds intQUsable messages, this is an overflow fault: the
// message is discarded and a break-class fault is recorded.
func (c *CPU) enqueueInterrupt(msg uint16) bool {
	next := (c.intTail + 1) % intQCap
	if next == c.intHead {
		c.pendingFault = &Fault{
			Kind:   FaultQueueOverflow,
			Detail: fmt.Sprintf("0x%04x", msg),
		}
		return false
	}
	c.intQueue[c.intTail] = msg
	c.intTail = next
	return true
}

func (c *CPU) intQueueEmpty() bool {
	return c.intHead == c.intTail
}

// deliverInterrupt runs after every executed instruction. If interrupt
// queueing is off and the queue is non-empty, it pops one message and, if
// a handler is installed (IA != 0), delivers it: queueing turns on, PC
// and A are pushed, and PC/A are set from IA/the message. With IA == 0
// the message is discarded silently.
func (c *CPU) deliverInterrupt() {
	if c.qints || c.intQueueEmpty() {
		return
	}
	msg := c.intQueue[c.intHead]
	c.intHead = (c.intHead + 1) % intQCap

	if c.ia == 0 {
		return
	}
	c.qints = true
	c.pushValue(c.pc)
	c.pushValue(c.reg[A])
	c.pc = c.ia
	c.reg[A] = msg
}
