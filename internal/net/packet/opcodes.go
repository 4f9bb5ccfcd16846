package packet

// Client → server.
const (
	C_OPCODE_HELLO         byte = 0x01 // name S, password S
	C_OPCODE_ADD_BODY      byte = 0x02 // x y z vx vy vz mass F
	C_OPCODE_ADD_BODY_DRAG byte = 0x03 // x y z vx vy vz F
	C_OPCODE_RESET         byte = 0x04
	C_OPCODE_PAUSE         byte = 0x05
	C_OPCODE_RESUME        byte = 0x06
	C_OPCODE_STEP          byte = 0x07
	C_OPCODE_QUIT          byte = 0x08
)

// Server → client.
const (
	S_OPCODE_WELCOME  byte = 0x81 // G dt softening F, role C, paused C
	S_OPCODE_SNAPSHOT byte = 0x82 // step Q, time F, total D, offset D, count D, count × (mass x y z vx vy vz F)
	S_OPCODE_STATE    byte = 0x83 // paused C, bodies D
	S_OPCODE_DIVERGED byte = 0x84 // step Q, index D, label S
	S_OPCODE_STATS    byte = 0x85 // kinetic potential px py pz F
	S_OPCODE_ERROR    byte = 0x86 // message S
)
